package mint

// The metrics backend itself is out of scope (spec.md §1 Non-goals); these
// hooks are the seam a real backend would attach to. They are package
// variables rather than an interface on Mint because every Mint instance
// shares the same process-wide metrics registry in the original design.
var (
	observeRedeemedEcash = func(amount Amount, fee Amount) {}
	observeIssuedEcash   = func(amount Amount) {}
)
