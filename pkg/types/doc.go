// Package types defines the Store and table interfaces, the CRM entity
// types (clients, contacts, activities, opportunities), their input payloads
// and the standard errors shared by every backend.
package types
