// Package pipeline runs one natural-language query through classification,
// validation, execution and summarization.
//
// Invariants:
// - The completion service only classifies and phrases; every value comes
//   from a registered engine.
// - Transport and validation failures abort the query; execution failures
//   abort only that query; a failed summary never discards a result.
// - A query is stateless: nothing is kept between calls to HandleQuery.
//
// Usage:
//
//	p, _ := pipeline.New(pipeline.Config{Completer: gw, Registry: reg})
//	outcome := p.HandleQuery(ctx, "What is 17 times 3 plus 2?")
//	fmt.Println(outcome.Message())
package pipeline
