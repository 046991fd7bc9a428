package testutils

import "github.com/securego/pysec"

// CodeSample encapsulates Python source files and how many issues should be detected
type CodeSample struct {
	Code     []string
	Errors   int
	Handlers int
	Config   pysec.Config
}
