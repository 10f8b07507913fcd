// Package mocks provides shared test doubles.
//
// Tests that need a generation.Generator use MockGenerator instead of defining
// inline fakes:
//
//	gen := &mocks.MockGenerator{
//	    GenerateFn: func(ctx context.Context, prompt string) string {
//	        return "reply to " + prompt
//	    },
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Record calls so tests can assert on them
package mocks
