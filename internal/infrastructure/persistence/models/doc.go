// Package models holds the GORM models of the ledger tables. Domain types
// carry no ORM tags; each model converts to and from its aggregate.
//
//   - base.go: embedded id, version and tenant columns
//   - ledger.go: party accounts, billing documents, payments
//   - revenue.go: order revenue, payouts, payment collections
package models
