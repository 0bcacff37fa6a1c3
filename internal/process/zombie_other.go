//go:build !unix

package process

// isZombie always reports false on non-Unix platforms; Windows has no
// zombie-process concept (spec §4.3).
func isZombie(pid int) (bool, error) { return false, nil }
