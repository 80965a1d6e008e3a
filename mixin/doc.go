// Package mixin composes classes out of mixins.
//
// A Class is an opaque constructor handle compared by identity. A Mixin is a
// function from a base class to a class extending it. Apply folds an ordered
// list of mixins over a base:
//
//	Flyable := mixin.Trait("Flyable", mixin.WithMethod("fly", fly))
//	Swimmable := mixin.Trait("Swimmable", mixin.WithMethod("swim", swim))
//
//	Duck, err := mixin.Apply(Animal, Flyable, Swimmable)
//
// Every (intermediate class, mixin) step is memoized, so:
//   - applying the same chain to the same base twice yields the identical *Class;
//   - a mixin runs at most once per class it is applied to, even under concurrent use;
//   - a chain sharing a prefix with an earlier chain reuses the prefix;
//   - the same mixins in another order yield another class.
//
// The cache holds its keys weakly. Once a base class or a mixin is otherwise
// unreachable, the entries keyed by it are reclaimed with it; there is no
// eviction policy to tune. Reset clears the cache explicitly.
//
// Members resolve from the most derived class upward, so when two mixins
// define the same method the one applied last wins. Conflicts are not reported.
package mixin
