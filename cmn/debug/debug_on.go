//go:build debug

package debug

import "fmt"

func assert(cond bool, vals ...any) {
	if !cond {
		panic(fmt.Sprintln(append([]any{"assertion failed:"}, vals...)...))
	}
}

func assertNoErr(err error) {
	if err != nil {
		panic(fmt.Sprintf("unexpected error: %v", err))
	}
}
