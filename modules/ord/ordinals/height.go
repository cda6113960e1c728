package ordinals

import "github.com/gaze-network/ord-indexer/common"

// JubileeHeight is the height from which cursed inscriptions are numbered as blessed.
func JubileeHeight(network common.Network) uint64 {
	switch network {
	case common.NetworkMainnet:
		return 824544
	case common.NetworkTestnet:
		return 2544192
	}
	return 0
}
