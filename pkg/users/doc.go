// Package users stores local user records and provisions them just in time.
//
// The first authenticated request from a subject creates a User and its
// default Settings in one transaction. Provisioner consults a Cache of
// subjects known to exist before touching the store; concurrent first
// requests for the same subject are coalesced in-process and resolved by
// INSERT ... ON CONFLICT DO NOTHING across processes.
//
// When the insert fails, the provisioner rechecks the store. A user that now
// exists is a success; anything else is a *ProvisioningError.
package users
