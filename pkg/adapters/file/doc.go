// Package file provides a ports.Adapter storing one JSON document per actor on the local filesystem.
package file
