package hostadapter

import (
	"io"
	"os"
)

// OSFiles implements Files directly against the Go os package. File
// handles are exposed to Smalltalk code as small integers (spec.md §5
// "Shared resources": "File handles... are owned by their host adapters
// and exposed through handle integers"), the same indirection the teacher
// VM uses for its own device interaction IDs (vm/devices.go InteractionID).
type OSFiles struct {
	open map[int]*os.File
	next int
}

// NewOSFiles builds a Files adapter with an empty handle table.
func NewOSFiles() *OSFiles {
	return &OSFiles{open: make(map[int]*os.File)}
}

func (f *OSFiles) install(file *os.File) int {
	f.next++
	f.open[f.next] = file
	return f.next
}

func (f *OSFiles) Open(path string) (int, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return 0, err
	}
	return f.install(file), nil
}

func (f *OSFiles) Create(path string) (int, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	return f.install(file), nil
}

func (f *OSFiles) Close(fd int) error {
	file, ok := f.open[fd]
	if !ok {
		return os.ErrInvalid
	}
	delete(f.open, fd)
	return file.Close()
}

func (f *OSFiles) Size(fd int) (int64, error) {
	file, ok := f.open[fd]
	if !ok {
		return 0, os.ErrInvalid
	}
	info, err := file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *OSFiles) Seek(fd int, pos int64) error {
	file, ok := f.open[fd]
	if !ok {
		return os.ErrInvalid
	}
	_, err := file.Seek(pos, io.SeekStart)
	return err
}

func (f *OSFiles) Read(fd int, buf []byte) (int, error) {
	file, ok := f.open[fd]
	if !ok {
		return 0, os.ErrInvalid
	}
	n, err := file.Read(buf)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (f *OSFiles) Write(fd int, buf []byte) (int, error) {
	file, ok := f.open[fd]
	if !ok {
		return 0, os.ErrInvalid
	}
	return file.Write(buf)
}

func (f *OSFiles) Truncate(fd int, size int64) error {
	file, ok := f.open[fd]
	if !ok {
		return os.ErrInvalid
	}
	return file.Truncate(size)
}

func (f *OSFiles) Delete(path string) error {
	return os.Remove(path)
}

func (f *OSFiles) Rename(from, to string) error {
	return os.Rename(from, to)
}
