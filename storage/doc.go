// Package storage persists session and plan documents as JSON files keyed
// by project/feature-scoped paths.
package storage
