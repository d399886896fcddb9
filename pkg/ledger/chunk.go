package ledger

// MaxChunkSize is the largest message slice the device accepts in one command.
const MaxChunkSize = 250

// ChunkPosition tells the device how to assemble its input buffer.
type ChunkPosition uint8

const (
	ChunkInit ChunkPosition = 0x00 // Starts a new buffer
	ChunkAdd  ChunkPosition = 0x01 // Appends to the buffer
	ChunkLast ChunkPosition = 0x02 // Appends and triggers processing
)

func (p ChunkPosition) String() string {
	switch p {
	case ChunkInit:
		return "init"
	case ChunkAdd:
		return "add"
	case ChunkLast:
		return "last"
	default:
		return "unknown"
	}
}

// Chunk is one framed slice of a larger payload.
type Chunk struct {
	Data     []byte
	Position ChunkPosition
}

// SplitChunks returns the encoded path as the first chunk, followed by the
// message cut into slices of at most maxChunkSize bytes.
//
// The first element is always tagged ChunkInit, even when it is the only one.
// Among the remaining elements the final one is ChunkLast and the others are
// ChunkAdd, so an empty message yields a single ChunkInit chunk.
func SplitChunks(encodedPath, message []byte, maxChunkSize int) []Chunk {
	if maxChunkSize <= 0 {
		panic("ledger: chunk size must be positive")
	}

	count := len(message) / maxChunkSize
	if len(message)%maxChunkSize != 0 {
		count++
	}
	chunks := make([]Chunk, 0, count+1)
	chunks = append(chunks, Chunk{Data: encodedPath, Position: ChunkInit})

	for i := 0; i < count; i++ {
		start := i * maxChunkSize
		end := start + min(maxChunkSize, len(message)-start)

		position := ChunkAdd
		if i == count-1 {
			position = ChunkLast
		}
		chunks = append(chunks, Chunk{Data: message[start:end], Position: position})
	}

	return chunks
}
