// Package mongo provides a ports.Adapter storing each actor as one flattened MongoDB document.
package mongo
