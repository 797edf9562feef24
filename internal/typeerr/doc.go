// Package typeerr provides the structured error type of the type engine.
//
// Errors carry a Class (name, structural, ownership, layout) and a precise
// Kind. errors.Is matches either on the class sentinels:
//
//	if errors.Is(err, typeerr.ErrStructural) { ... }
//
// or on a class and kind pair:
//
//	errors.Is(err, &typeerr.Error{Class: typeerr.ClassName, Kind: typeerr.KindNotFound})
//
// Use the Builder when an error needs several context fields:
//
//	err := typeerr.New(typeerr.ClassStructural, typeerr.KindDuplicateField).
//		Type("/Simple").
//		Field("a").
//		Detail("field already defined").
//		Build()
package typeerr
