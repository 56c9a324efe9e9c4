// Package catalog holds the ordered list of templates and separators and
// persists it to the preference backend.
//
// The persisted form is five parallel lists (see Persisted). Separators take
// a slot in the id and name lists but none in the tag map lists. Template
// flags and the icon reference travel inside the encoded name:
//
//	false,false,false,false#F#Bench#I#amenity/bench.svg
//	true,false,true,false#F#Road#D#2
//
// Loading never fails: data that is missing or inconsistent is replaced by
// the built-in defaults with a warning.
package catalog
