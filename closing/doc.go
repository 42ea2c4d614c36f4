// Package closing models a kiosk's daily cash closing and turns it into outbox entries.
//
// Amounts are kept as the operator typed them and parsed with ParseAmount when
// totals are computed, so a half-filled form still totals cleanly.
package closing
