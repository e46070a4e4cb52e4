//go:build !gocv

package imaging

import "errors"

func newGocvEncoder() (Encoder, error) {
	return nil, errors.New("gocv encoder unavailable: rebuild with -tags gocv")
}
