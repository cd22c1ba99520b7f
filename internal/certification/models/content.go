package models

import (
	"strings"

	"github.com/ipfs/go-cid"

	dErrors "calibra/pkg/domain-errors"
)

const ipfsScheme = "ipfs://"

// ContentValidator checks a content reference at initiation.
type ContentValidator func(ref string) error

// AnyContentReference accepts every non-blank reference as opaque.
func AnyContentReference(ref string) error {
	if strings.TrimSpace(ref) == "" {
		return dErrors.New(dErrors.CodeInvalidArguments, "content reference is required")
	}
	return nil
}

// StrictIPFSReference additionally requires ipfs:// references to start
// with a parseable CID. Other schemes stay opaque.
func StrictIPFSReference(ref string) error {
	if err := AnyContentReference(ref); err != nil {
		return err
	}
	rest, ok := strings.CutPrefix(ref, ipfsScheme)
	if !ok {
		return nil
	}
	root, _, _ := strings.Cut(rest, "/")
	if _, err := cid.Decode(root); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidArguments, "content reference is not a valid ipfs CID")
	}
	return nil
}
