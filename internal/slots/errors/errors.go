package errors

import "errors"

var (
	ErrNotFound = errors.New("parking slot not found")

	ErrNoCompatibleSlot = errors.New("no compatible parking slot available")

	ErrDuplicateSlotNumber = errors.New("slot number already exists")

	// ErrSlotInUse is returned when a slot bound to an approved request is
	// deleted.
	ErrSlotInUse = errors.New("parking slot is in use")

	// ErrStateChanged means a conditional slot update matched no document
	// because another writer changed the slot's status first.
	ErrStateChanged = errors.New("parking slot status changed concurrently")
)
