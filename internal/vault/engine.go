package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-vault/internal/indexer"
	"github.com/Klingon-tech/klingnet-vault/internal/journal"
	"github.com/Klingon-tech/klingnet-vault/internal/log"
	"github.com/Klingon-tech/klingnet-vault/internal/metrics"
	"github.com/Klingon-tech/klingnet-vault/internal/poll"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Default confirmation wait used when SendOptions.WaitConfirm is set.
const (
	DefaultConfirmInterval = 2 * time.Second
	DefaultConfirmTimeout  = 5 * time.Minute
)

// ErrTxFailed is returned when a submitted transaction fails on chain.
var ErrTxFailed = errors.New("transaction failed on chain")

// Engine drives one vault through a full send flow.
type Engine struct {
	vault    Vault
	journal  *journal.Journal
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithJournal records broadcasts in j.
func WithJournal(j *journal.Journal) EngineOption {
	return func(e *Engine) { e.journal = j }
}

// WithConfirmWait sets the confirmation poll interval and timeout.
func WithConfirmWait(interval, timeout time.Duration) EngineOption {
	return func(e *Engine) {
		if interval > 0 {
			e.interval = interval
		}
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// NewEngine creates an engine for v.
func NewEngine(v Vault, opts ...EngineOption) *Engine {
	e := &Engine{
		vault:    v,
		interval: DefaultConfirmInterval,
		timeout:  DefaultConfirmTimeout,
		logger:   log.WithChain(v.Chain()),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Vault returns the engine's vault.
func (e *Engine) Vault() Vault { return e.vault }

// SendOptions control a send flow.
type SendOptions struct {
	Password []byte
	// Fee replaces the default fee before signing.
	Fee *FeeInfo
	// SignOnly stops after signing.
	SignOnly bool
	// WaitConfirm polls until the final transaction confirms.
	WaitConfirm bool
}

// SendResult reports how far a send flow got.
type SendResult struct {
	Unsigned *UnsignedTx
	Decoded  DecodedTx
	Signed   *SignedTx
	Reveal   *SignedTx
	Stage    Stage
	History  []Transition
}

// Prepare builds the unsigned and decoded forms of transfer.
func (e *Engine) Prepare(ctx context.Context, transfer TransferInfo, fee *FeeInfo) (*UnsignedTx, DecodedTx, error) {
	chain := e.vault.Chain()
	start := time.Now()
	enc, err := e.vault.BuildEncodedTx(ctx, []TransferInfo{transfer})
	metrics.BuildTotal.WithLabelValues(chain, metrics.Result(err)).Inc()
	metrics.Observe(metrics.BuildLatency.WithLabelValues(chain), start)
	if err != nil {
		return nil, DecodedTx{}, err
	}
	unsigned, err := BuildUnsignedTx(enc, transfer)
	if err != nil {
		return nil, DecodedTx{}, err
	}
	if fee != nil {
		if unsigned, err = e.vault.UpdateUnsignedTx(ctx, unsigned, *fee); err != nil {
			return nil, DecodedTx{}, err
		}
	}
	return unsigned, e.vault.BuildDecodedTx(unsigned), nil
}

// Send runs build, decode, sign and broadcast for transfer, then the
// reveal step when the chain needs one. On failure the partial result is
// returned alongside the error.
func (e *Engine) Send(ctx context.Context, transfer TransferInfo, opts SendOptions) (*SendResult, error) {
	lc := NewLifecycle()
	res := &SendResult{}
	finish := func(err error) (*SendResult, error) {
		if err != nil {
			failedAt := lc.Stage()
			lc.Fail(err)
			e.logger.Warn().Err(err).Stringer("stage", failedAt).Msg("Send failed")
		}
		res.Stage = lc.Stage()
		res.History = lc.History()
		return res, err
	}

	unsigned, decoded, err := e.Prepare(ctx, transfer, opts.Fee)
	if err != nil {
		return finish(err)
	}
	res.Unsigned, res.Decoded = unsigned, decoded
	if err := lc.Advance(StageDecoded); err != nil {
		return finish(err)
	}

	signed, err := e.sign(ctx, unsigned, opts.Password)
	if err != nil {
		return finish(err)
	}
	res.Signed = signed
	if err := lc.Advance(StageSigned); err != nil {
		return finish(err)
	}
	if opts.SignOnly {
		return finish(nil)
	}

	if signed, err = e.Broadcast(ctx, signed); err != nil {
		return finish(err)
	}
	res.Signed = signed
	if err := lc.Advance(StageSubmitted); err != nil {
		return finish(err)
	}
	final := signed

	if RequiresReveal(signed.Encoded) {
		if err := lc.Advance(StageAwaitingReveal); err != nil {
			return finish(err)
		}
		reveal, err := e.Reveal(ctx, signed, opts.Password)
		if err != nil {
			return finish(err)
		}
		res.Reveal = reveal
		if err := lc.Advance(StageRevealSubmitted); err != nil {
			return finish(err)
		}
		final = reveal
	}

	if opts.WaitConfirm {
		if err := e.WaitConfirmed(ctx, final.TxID); err != nil {
			return finish(err)
		}
		if err := lc.Advance(StageConfirmed); err != nil {
			return finish(err)
		}
	}
	return finish(nil)
}

// Reveal waits for a commit to confirm, then signs and broadcasts the
// follow-up transaction. It returns nil if nothing follows.
func (e *Engine) Reveal(ctx context.Context, commit *SignedTx, password []byte) (*SignedTx, error) {
	unsigned, err := e.vault.AfterSend(ctx, commit)
	if err != nil || unsigned == nil {
		return nil, err
	}
	signed, err := e.sign(ctx, unsigned, password)
	if err != nil {
		return nil, fmt.Errorf("sign reveal: %w", err)
	}
	signed, err = e.Broadcast(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("broadcast reveal: %w", err)
	}
	e.logger.Info().Str("commit", commit.TxID).Str("reveal", signed.TxID).Msg("Reveal submitted")
	return signed, nil
}

func (e *Engine) sign(ctx context.Context, unsigned *UnsignedTx, password []byte) (*SignedTx, error) {
	signed, err := e.vault.SignTransaction(ctx, unsigned, password)
	metrics.SignTotal.WithLabelValues(e.vault.Chain(), metrics.Result(err)).Inc()
	return signed, err
}

// Broadcast submits signed. A payload the node already knows resolves to
// its journaled txid.
func (e *Engine) Broadcast(ctx context.Context, signed *SignedTx) (*SignedTx, error) {
	chain := e.vault.Chain()
	out, err := e.vault.Broadcast(ctx, signed)
	if err != nil && e.journal != nil && indexer.IsAlreadyKnown(err) {
		entry, ok, jerr := e.journal.Lookup(chain, signed.Raw)
		if jerr == nil && ok {
			e.logger.Info().Str("txid", entry.TxID).Msg("Payload already broadcast")
			dup := *signed
			dup.TxID = entry.TxID
			metrics.BroadcastTotal.WithLabelValues(chain, "duplicate").Inc()
			return &dup, nil
		}
	}
	metrics.BroadcastTotal.WithLabelValues(chain, metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	if e.journal != nil {
		if jerr := e.journal.Record(chain, out.Raw, out.TxID); jerr != nil {
			// the broadcast itself succeeded
			e.logger.Warn().Err(jerr).Str("txid", out.TxID).Msg("Journal write failed")
		}
	}
	e.logger.Info().Str("txid", out.TxID).Msg("Transaction submitted")
	return out, nil
}

// WaitConfirmed polls until txid succeeds. Transient status errors are
// retried until the timeout.
func (e *Engine) WaitConfirmed(ctx context.Context, txid string) error {
	err := poll.Until(ctx, e.interval, e.timeout, func(ctx context.Context) (bool, error) {
		status, err := e.vault.TxStatus(ctx, txid)
		switch {
		case vaulterr.Retryable(err):
			return false, nil
		case err != nil:
			return false, err
		case status == indexer.TxFailed:
			return false, fmt.Errorf("%w: %s", ErrTxFailed, txid)
		}
		return status == indexer.TxSuccess, nil
	})
	if err != nil {
		return fmt.Errorf("wait for %s: %w", txid, err)
	}
	return nil
}
