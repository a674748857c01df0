package reload

import "errors"

// ErrReentrant is returned when Reload is called while another reload on
// the same Reloader is in progress, including from within a unit executed
// by that reload.
var ErrReentrant = errors.New("reload already in progress")
