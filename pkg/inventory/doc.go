// Package inventory holds the medical supply model, its owner-scoped SQL
// store and the derived stats and alerts shown on the dashboard.
//
// Items are created from a JSON patch so that create and update share one
// set of field rules:
//
//	item := inventory.NewItem(uuid.NewString(), owner, now)
//	if err := item.Apply(patch); err != nil { ... } // *ValidationError
//	err := store.Create(ctx, item)
//
// Update writes only the columns of the fields that were sent. Update and
// Delete match on both id and owner and return ErrNotFound when nothing
// matched.
package inventory
