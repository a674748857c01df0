package health

import (
	"context"
	"errors"
	"fmt"
)

// UnitsLoaded fails while the module table holds fewer than min units.
func UnitsLoaded(count func() int, min int) CheckFunc {
	return func(ctx context.Context) error {
		if n := count(); n < min {
			return fmt.Errorf("%d units loaded, want at least %d", n, min)
		}
		return nil
	}
}

// LastReload fails while the most recent reload returned an error.
func LastReload(last func() error) CheckFunc {
	return func(ctx context.Context) error {
		if err := last(); err != nil {
			return errors.New("last reload failed: " + err.Error())
		}
		return nil
	}
}
