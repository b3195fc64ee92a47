// Package resolver computes a consistent set of package versions for a list
// of version constraints.
//
// # Algorithm
//
// [Resolve] runs a fixed-point search over a frontier of constraints. Each
// round it fetches, concurrently, every recipe the frontier names that has
// not been fetched yet, then incorporates the round's constraints grouped
// by package:
//
//  1. All constraints recorded for a package are intersected.
//  2. The highest published version satisfying the intersection is selected.
//  3. If the selection changed, the constraints the previous version imposed
//     are withdrawn and the dependencies of the newly selected version join
//     the next round's frontier.
//
// Every constraint remembers the package version that imposed it, so a
// reselection never leaves stale constraints behind. Packages that lost a
// constraint are reselected in the next round; a package nobody requires
// any more loses its selection. The search stops when the frontier is empty
// and no package awaits reselection. An empty intersection only fails the
// resolution once a round changes nothing else, and a search that keeps
// moving for more than four rounds per allowed package is aborted.
//
// Because every round waits for its fetches before selecting, and packages
// are processed in sorted order, the result depends only on the recipe data
// and the constraints, never on which fetch finished first.
//
// # Failures
//
// Resolution fails as a whole. An empty intersection is reported as a
// [*ConflictError] naming the package and the requirements that cannot be
// met together, each with the chain of packages that introduced it. Fetch
// failures are returned as produced by the source. A timeout or
// cancellation stops new fetches and surfaces the context error.
package resolver
