package course

// Navigator steps through a course's topic documents. Movement clamps at
// both ends; there is no wraparound.
type Navigator struct {
	docs  []TopicDocument
	index int
	clean func(string) string
}

// NewNavigator creates a Navigator positioned on the first document. clean
// prepares a body for on-screen preview; nil leaves bodies unchanged.
func NewNavigator(docs []TopicDocument, clean func(string) string) *Navigator {
	if clean == nil {
		clean = func(s string) string { return s }
	}
	return &Navigator{docs: docs, clean: clean}
}

func (n *Navigator) Len() int   { return len(n.docs) }
func (n *Navigator) Index() int { return n.index }

// Current returns the selected document, or false when there are none.
func (n *Navigator) Current() (TopicDocument, bool) {
	if len(n.docs) == 0 {
		return TopicDocument{}, false
	}
	return n.docs[n.index], true
}

func (n *Navigator) HasNext() bool     { return n.index+1 < len(n.docs) }
func (n *Navigator) HasPrevious() bool { return n.index > 0 }

// Next moves forward one document. It reports false at the last document.
func (n *Navigator) Next() bool {
	if !n.HasNext() {
		return false
	}
	n.index++
	return true
}

// Previous moves back one document. It reports false at the first document.
func (n *Navigator) Previous() bool {
	if !n.HasPrevious() {
		return false
	}
	n.index--
	return true
}

// Select jumps to document i. Out-of-range indexes leave the position
// unchanged and report false.
func (n *Navigator) Select(i int) bool {
	if i < 0 || i >= len(n.docs) {
		return false
	}
	n.index = i
	return true
}

// Preview returns the cleaned body of the current document.
func (n *Navigator) Preview() string {
	doc, ok := n.Current()
	if !ok {
		return ""
	}
	return n.clean(doc.PlainTextBody)
}
