package domain

import "errors"

// ErrDialogueNotFound is returned when an operation references a
// dialogue id that is absent from the session store. This is a contract
// violation by the caller, not a degradable backend failure.
var ErrDialogueNotFound = errors.New("dialogue not found")
