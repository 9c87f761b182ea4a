//go:build avldebug

package tree

const assertions = true
