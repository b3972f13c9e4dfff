package session

import (
	"math/rand"
	"strings"
	"unicode/utf8"
)

const maxDeviceNameLen = 64

var adjectives = []string{
	"Swift", "Quiet", "Bright", "Clever", "Brave", "Calm", "Lucky", "Rapid",
	"Gentle", "Bold", "Silver", "Golden", "Cosmic", "Misty", "Sunny", "Witty",
}

var nouns = []string{
	"Falcon", "Otter", "Panda", "Fox", "Comet", "Maple", "Harbor", "Pebble",
	"Tiger", "Raven", "Koala", "Lynx", "Orbit", "Cedar", "Willow", "Badger",
}

// randomDeviceName composes a label such as "Swift Otter".
func randomDeviceName() string {
	return adjectives[rand.Intn(len(adjectives))] + " " + nouns[rand.Intn(len(nouns))]
}

// normalizeDeviceName trims a client supplied name. An empty result means the
// caller should generate one.
func normalizeDeviceName(name string) string {
	name = strings.TrimSpace(name)
	if name == "null" || name == "undefined" {
		return ""
	}
	for utf8.RuneCountInString(name) > maxDeviceNameLen {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return strings.TrimSpace(name)
}
