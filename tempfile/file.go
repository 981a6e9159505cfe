package tempfile

import (
	"io"
)

type File interface {
	io.ReadWriteSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// WriteTempFile creates a temporary file containing content, positioned at
// the start of the file.
func WriteTempFile(dir string, content []byte) (File, error) {
	f, err := MakeTempFile(dir)
	if err != nil {
		return nil, err
	}
	_, err = f.Write(content)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}
