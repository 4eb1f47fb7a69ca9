package studio

// CloneFinished exposes the clone completion handler so tests can replay a
// late completion deterministically.
var CloneFinished = (*Controller).cloneFinished
