// Package todo implements the to-do item lifecycle on top of store.ItemStore.
//
// Every operation takes the owner's account ID explicitly. Lookups of an item
// that belongs to a different owner fail with ErrNotFound, exactly like a
// lookup of an ID that was never assigned.
//
// Items are created open, may be edited any number of times and may be
// completed. There is no way to reopen a completed item. Every write
// re-stamps LastModified, which orders both listings newest first.
//
// Validation failures are returned as *ValidationError and never reach the
// store:
//
//	_, err := svc.Create(ctx, owner, todo.Input{Title: ""})
//	var verr *todo.ValidationError
//	if errors.As(err, &verr) {
//		// re-render the form
//	}
package todo
