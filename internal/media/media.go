// Package media holds the handful of types shared between the
// classifier, naming and materializer layers.
package media

// Kind distinguishes series from movies.
type Kind string

const (
	TV    Kind = "tv"
	Movie Kind = "movie"
)

// Language selects the folder naming language.
type Language string

const (
	LangZH Language = "zh"
	LangEN Language = "en"
)
