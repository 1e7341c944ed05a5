package utils

import (
	"encoding/binary"
	"fmt"
	"os"
)

// ReadBinary reads a file of little-endian fixed-size values.
func ReadBinary[T any](filename string) ([]T, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, fmt.Errorf("%T has no fixed size", zero)
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%s: %d bytes is not a multiple of %d", filename, len(data), size)
	}

	out := make([]T, len(data)/size)
	if _, err := binary.Decode(data, binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return out, nil
}

func WriteBinary[T any](filename string, data []T) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return file.Close()
}

// WriteTxt writes f(element) for each element, one per line.
func WriteTxt[V, T any](filename string, data []T, f func(T) V) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	for _, element := range data {
		if _, err := fmt.Fprintln(file, f(element)); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}
	return file.Close()
}
