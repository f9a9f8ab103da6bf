// Package atom: see atom.go for the Predicate interface and its four
// implementations (Any, Literal, Class, ClassComplement).
package atom
