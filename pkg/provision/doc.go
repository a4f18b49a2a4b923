// Package provision records the access a customer gets after a successful
// checkout. Provisioner implements checkout.Provisioner: every completed
// checkout becomes a Grant that lasts until the subscription's current period
// end. Grants live in a Store, either MemoryStore or PostgresStore (table
// access_grants, migrations embedded in Migrations).
package provision
