// Package redis provides a ports.Adapter backed by Redis (one JSON value per actor plus a sorted-set index).
package redis
