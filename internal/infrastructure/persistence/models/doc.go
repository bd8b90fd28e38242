// Package models holds the GORM row types of the ledger. Domain types never
// carry ORM tags; repositories convert with ToDomain and the *FromDomain
// constructors.
//
// The unique indexes declared here are the ledger's last line of defence:
// one running period, one stock card per product and period, one entry per
// document reference. Two instances racing on the same posting collide on
// these indexes rather than writing a duplicate row.
package models
