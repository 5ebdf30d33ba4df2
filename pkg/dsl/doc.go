/*
Package dsl provides a fluent builder for constructing AutoFlow workflows in Go.

It is an alternative to writing workflow documents by hand, useful for tests,
generated workflows and IDE type-checking. Connections are applied through the
same mutation rules as the editor, so a route to an undeclared node is an error.

Example usage:

	wf, err := dsl.New("greeting").
		Name("Greeting").
		Add("start", domain.NodeTypeTrigger).Subtype("webhook").Go("check").
		Add("check", domain.NodeTypeCondition).Set("expression", "{{start.payload}}").
		OnTrue("hello").OnFalse("bye").
		Add("hello", domain.NodeTypeLog).Set("message", "Hello!").
		Add("bye", domain.NodeTypeLog).Set("message", "Bye!").
		Build()
*/
package dsl
