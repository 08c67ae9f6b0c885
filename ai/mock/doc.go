// Package mock provides test doubles for the ai interfaces.
//
// The mocks default to deterministic behavior so tests are repeatable
// without external services, and expose function fields for injecting
// custom behavior per test.
package mock
