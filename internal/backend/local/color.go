package local

import (
	"hash/fnv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

const deviceColor uint32 = 0x999999

// addrColor derives a stable 0xRRGGBB accent color from an address.
func addrColor(addr string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(addr)))
	r, g, b := colorful.Hsl(float64(h.Sum32()%360), 0.75, 0.45).Clamped().RGB255()
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
