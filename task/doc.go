// Package task maps pipeline stages to model tiers, so each stage of the
// workflow runs on a model sized for it.
package task
