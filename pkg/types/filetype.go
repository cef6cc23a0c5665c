package types

import (
	"bufio"
	"bytes"
	"os"

	"github.com/pkg/errors"
)

const (
	IS_UNKNOWN = -1
	IS_GES     = 1
	IS_KMZ     = 2
)

// EvinceFileType sniffs the first bytes of fn: a JSON object is taken to
// be a camera path export, a zip archive a mission package.
func EvinceFileType(fn string) (int, error) {
	res := IS_UNKNOWN
	file, err := os.Open(fn)
	if err != nil {
		return res, errors.Wrapf(ErrInputNotFound, "%s: %v", fn, err)
	}
	defer file.Close()
	fh := bufio.NewReader(file)
	sig, _ := fh.Peek(128) //read a few bytes without consuming
	sig = bytes.TrimLeft(sig, "\xef\xbb\xbf \t\r\n")
	switch {
	case bytes.HasPrefix(sig, []byte("{")):
		res = IS_GES
	case bytes.HasPrefix(sig, []byte("PK\003\004")):
		res = IS_KMZ
	}
	return res, nil
}
