package vault

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// IndexPlaceholder marks the address index in an HD path template.
const IndexPlaceholder = "{index}"

// PathForIndex substitutes index into template.
func PathForIndex(template string, index uint32) (string, error) {
	if !strings.Contains(template, IndexPlaceholder) {
		return "", fmt.Errorf("hd path template %q has no %s placeholder", template, IndexPlaceholder)
	}
	return strings.ReplaceAll(template, IndexPlaceholder, strconv.FormatUint(uint64(index), 10)), nil
}

// DeriveAddresses runs derive for every index of template concurrently and
// returns the results in index order.
func DeriveAddresses(ctx context.Context, template string, indexes []uint32, derive func(path string) (DerivedAddress, error)) ([]DerivedAddress, error) {
	out := make([]DerivedAddress, len(indexes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, idx := range indexes {
		path, err := PathForIndex(template, idx)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			addr, err := derive(path)
			if err != nil {
				return fmt.Errorf("derive %s: %w", path, err)
			}
			addr.Path = path
			out[i] = addr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
