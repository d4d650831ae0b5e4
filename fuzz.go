package ppdb

// Fuzz is a go-fuzz entry point exercising Parse against arbitrary input.
// Malformed input must always terminate with an error rather than panic,
// read out of bounds, or allocate unboundedly.
func Fuzz(data []byte) int {
	f, err := NewBytes(data, &Options{})
	if err != nil {
		return 0
	}
	if err := f.Parse(); err != nil {
		return 0
	}

	for row := uint32(1); row <= uint32(len(f.methodDebugInfos)); row++ {
		md, err := f.MethodDebugInfo(row)
		if err != nil {
			return 0
		}
		if _, err := md.SequencePoints(); err != nil {
			continue
		}
	}

	return 1
}
