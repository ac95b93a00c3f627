package server

import (
	"github.com/ventosilenzioso/numberstream/internal/protocol"
	"github.com/ventosilenzioso/numberstream/internal/wire"
)

// maxPerFragmentFor derives, once per process, how many float64 samples
// a single NumberSequenceResponse fragment may carry so its serialized
// size never exceeds protocol.MessageMaxSize. It probes the wire size
// of a response with zero numbers, then divides the remaining budget by
// the eight bytes every float64 costs on the wire (spec.md §4.3: "a
// full fragment's serialized size never exceeds MESSAGE_MAX_SIZE,
// derived once from a size probe of an empty response plus per-element
// overhead").
func maxPerFragmentFor(messageMaxSize int) uint64 {
	probe := emptyResponseSize()
	budget := messageMaxSize - probe
	if budget <= 0 {
		return 1
	}
	return uint64(budget / 8)
}

func emptyResponseSize() int {
	return len(encodeProbeResponse())
}

func encodeProbeResponse() []byte {
	// Field sizes are fixed regardless of content except for the
	// trailing error_message string and the numbers slice, both of
	// which are empty in the probe — matching the worst case for a
	// successful (non-error) fragment, which never carries an
	// error_message.
	resp := &protocol.NumberSequenceResponse{}
	return wire.EncodeNumberSequenceResponse(resp)
}

// sequenceCount computes how many fragments a request splits into.
func sequenceCount(numberCount, maxPerFragment uint64) uint64 {
	if numberCount == 0 {
		return 0
	}
	count := numberCount / maxPerFragment
	if numberCount%maxPerFragment != 0 {
		count++
	}
	return count
}

// fragmentSize returns how many numbers fragment sequenceIndex (0-based)
// of sequenceCount total fragments should carry.
//
// When number_count is an exact multiple of maxPerFragment, this port
// takes option (b) from spec.md §9: the final fragment is a full
// maxPerFragment-sized fragment rather than an empty one.
func fragmentSize(sequenceIndex, numberCount, maxPerFragment uint64) uint64 {
	remainder := numberCount % maxPerFragment
	if sequenceIndex == sequenceCount(numberCount, maxPerFragment)-1 && remainder != 0 {
		return remainder
	}
	return maxPerFragment
}
