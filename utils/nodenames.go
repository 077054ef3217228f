package utils

import (
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"

	"github.com/Pallinder/go-randomdata"
)

// randomdata keeps a single package level source
var nodeNamesMu sync.Mutex

// NodeNames gives unnamed scene nodes a readable name derived from their uuid.
// The same uuid gets the same name on every export. The zero value is ready to use.
type NodeNames struct {
	used map[string]struct{}
}

func (nn *NodeNames) NameFor(id string) string {
	if nn.used == nil {
		nn.used = make(map[string]struct{})
	}

	h := fnv.New64a()
	h.Write([]byte(id))

	nodeNamesMu.Lock()
	randomdata.CustomRand(rand.New(rand.NewSource(int64(h.Sum64()))))
	name := randomdata.SillyName()
	nodeNamesMu.Unlock()

	unique := name
	for i := 2; ; i++ {
		if _, exists := nn.used[unique]; !exists {
			break
		}
		unique = name + strconv.Itoa(i)
	}
	nn.used[unique] = struct{}{}
	return unique
}
