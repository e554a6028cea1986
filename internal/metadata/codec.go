package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// imageMagic prefixes every encoded image so arbitrary files are rejected early.
var imageMagic = []byte("XMDI")

// ErrNotImage reports input that does not carry the image magic.
var ErrNotImage = errors.New("not a module image")

// Encode writes img to w.
func Encode(w io.Writer, img *Image) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	if _, err := w.Write(imageMagic); err != nil {
		return err
	}
	out := *img
	out.Schema = ImageSchema
	enc := msgpack.NewEncoder(w)
	enc.SetOmitEmpty(true)
	return enc.Encode(&out)
}

// Decode reads one image from r.
func Decode(r io.Reader) (*Image, error) {
	magic := make([]byte, len(imageMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotImage
		}
		return nil, err
	}
	if !bytes.Equal(magic, imageMagic) {
		return nil, ErrNotImage
	}
	var img Image
	if err := msgpack.NewDecoder(r).Decode(&img); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Schema != ImageSchema {
		return nil, fmt.Errorf("image schema %d is not supported (want %d)", img.Schema, ImageSchema)
	}
	return &img, nil
}

// ReadFile decodes the image stored at path.
func ReadFile(path string) (*Image, error) {
	// #nosec G304 -- path is a user-supplied module
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// WriteFile encodes img to path atomically.
func WriteFile(path string, img *Image) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".image-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// no-op once renamed
		_ = os.Remove(tmp)
	}()
	if err := Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
