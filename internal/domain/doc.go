// Package domain contains the core entities of the XP service: the
// per-user aggregate XP state, the append-only XP transaction ledger
// entries, and the activity cap and leveling rules that govern awards.
package domain
