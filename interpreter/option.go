package interpreter

// Option configures an Interpreter at construction.
type Option struct {
	apply func(in *Interpreter)
}

// BeforeStep adds callbacks invoked just before each instruction runs.
func BeforeStep(h ...func(Step)) Option {
	return Option{
		apply: func(in *Interpreter) { in.beforeStep = append(in.beforeStep, h...) },
	}
}

// AfterStep adds callbacks invoked after each instruction's handler returns
// successfully.
func AfterStep(h ...func(Step)) Option {
	return Option{
		apply: func(in *Interpreter) { in.afterStep = append(in.afterStep, h...) },
	}
}

// WithStepLimit makes Interpret fail once a script runs more than n
// instructions. Zero means no limit.
func WithStepLimit(n int) Option {
	return Option{
		apply: func(in *Interpreter) { in.stepLimit = n },
	}
}
