package entity

// Frame is one decoded still image on local storage. Index is the 0-based
// ordinal assigned by the sampler and never changes afterwards.
type Frame struct {
	Index int
	Path  string
}

// FrameSet is the ordered collection of frames still under consideration.
type FrameSet struct {
	Dir    string
	Frames []Frame
}

func (s FrameSet) Len() int {
	return len(s.Frames)
}

func (s FrameSet) Paths() []string {
	paths := make([]string, len(s.Frames))
	for i, f := range s.Frames {
		paths[i] = f.Path
	}
	return paths
}

func (s FrameSet) Indexes() []int {
	idx := make([]int, len(s.Frames))
	for i, f := range s.Frames {
		idx[i] = f.Index
	}
	return idx
}
