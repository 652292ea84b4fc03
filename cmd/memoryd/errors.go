package main

import "github.com/memkit/memoryd/internal/errs"

// errCode derives the machine-readable code surfaced in the CLI's
// {error:{code,message}} envelope: an *errs.Error's own Code if it set
// one, otherwise its Kind's name, falling back to "internal" for a
// plain error.
func errCode(err error) string {
	if code := errs.CodeOf(err); code != "" {
		return code
	}
	return errs.Of(err).String()
}
