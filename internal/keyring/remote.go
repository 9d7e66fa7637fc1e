package keyring

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-vault/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-vault/internal/wallet"
	"github.com/Klingon-tech/klingnet-vault/pkg/vaulterr"
)

// Hardware forwards payloads to a hardware device.
type Hardware struct {
	acct   wallet.Account
	device Device
}

func newHardware(acct wallet.Account, deps Deps) (Signer, error) {
	if deps.Device == nil {
		return nil, errors.New("hardware signer requires a device")
	}
	return &Hardware{acct: acct, device: deps.Device}, nil
}

// Account returns the signing account.
func (hw *Hardware) Account() wallet.Account { return hw.acct }

// Sign blocks until the device answers or ctx is done.
func (hw *Hardware) Sign(ctx context.Context, req SignRequest) ([][]byte, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	sigs, err := hw.device.Sign(ctx, hw.acct.Path, req.Scheme, req.Payloads)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("hardware sign: %w", err)
	}
	if err := verifyCount(hw.acct, len(req.Payloads), sigs); err != nil {
		return nil, err
	}
	logSigned(hw.acct, len(sigs))
	return sigs, nil
}

// SignMethod is the JSON-RPC method an external signer serves.
const SignMethod = "vault_sign"

type remoteSignParams struct {
	Account  string   `json:"account"`
	Address  string   `json:"address"`
	Chain    string   `json:"chain"`
	Scheme   string   `json:"scheme"`
	Payloads []string `json:"payloads"`
}

type remoteSignResult struct {
	Signatures []string `json:"signatures"`
}

// External asks a remote signer over JSON-RPC.
type External struct {
	acct   wallet.Account
	client *rpcclient.Client
}

func newExternal(acct wallet.Account, deps Deps) (Signer, error) {
	var c *rpcclient.Client
	if deps.Remote != nil {
		c = deps.Remote(acct.Endpoint)
	} else {
		c = rpcclient.New(acct.Endpoint)
	}
	return &External{acct: acct, client: c}, nil
}

// Account returns the signing account.
func (ex *External) Account() wallet.Account { return ex.acct }

// Sign calls the remote signer.
func (ex *External) Sign(ctx context.Context, req SignRequest) ([][]byte, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	params := remoteSignParams{
		Account:  ex.acct.ID,
		Address:  ex.acct.Address,
		Chain:    ex.acct.Chain,
		Scheme:   req.Scheme.String(),
		Payloads: make([]string, len(req.Payloads)),
	}
	for i, p := range req.Payloads {
		params.Payloads[i] = hex.EncodeToString(p)
	}
	var res remoteSignResult
	if err := ex.client.Call(ctx, SignMethod, params, &res); err != nil {
		return nil, fmt.Errorf("external sign: %w", err)
	}
	sigs := make([][]byte, len(res.Signatures))
	for i, s := range res.Signatures {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("external sign: signature %d: %w", i, err)
		}
		sigs[i] = b
	}
	if err := verifyCount(ex.acct, len(req.Payloads), sigs); err != nil {
		return nil, err
	}
	logSigned(ex.acct, len(sigs))
	return sigs, nil
}

// Watching is a read-only account. It never signs.
type Watching struct {
	acct wallet.Account
}

func newWatching(acct wallet.Account, _ Deps) (Signer, error) {
	return &Watching{acct: acct}, nil
}

// Account returns the watched account.
func (w *Watching) Account() wallet.Account { return w.acct }

// Sign always fails with ErrSigningNotSupported.
func (w *Watching) Sign(context.Context, SignRequest) ([][]byte, error) {
	return nil, vaulterr.Newf(vaulterr.ErrSigningNotSupported, "account %s is watch-only", w.acct.ID)
}
