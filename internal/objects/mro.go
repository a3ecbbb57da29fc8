package objects

import "fmt"

type mroError struct {
	msg     string
	tooLong bool
}

func (e *mroError) Error() string { return e.msg }

// computeMRO returns the C3 linearization of t: t itself followed by the
// merge of its bases' linearizations and the base list. The result is
// rejected when it would exceed limit entries.
func computeMRO(t *Type, limit int) ([]*Type, error) {
	if len(t.bases) == 0 {
		return []*Type{t}, nil
	}
	seqs := make([][]*Type, 0, len(t.bases)+1)
	for _, b := range t.bases {
		seqs = append(seqs, append([]*Type(nil), b.mro...))
	}
	seqs = append(seqs, append([]*Type(nil), t.bases...))

	out := []*Type{t}
	for {
		nonEmpty := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				nonEmpty = append(nonEmpty, s)
			}
		}
		seqs = nonEmpty
		if len(seqs) == 0 {
			return out, nil
		}
		if len(out) >= limit {
			return nil, &mroError{msg: fmt.Sprintf("method resolution order of %s longer than %d", t.name, limit), tooLong: true}
		}

		var head *Type
		for _, s := range seqs {
			cand := s[0]
			if !inTail(cand, seqs) {
				head = cand
				break
			}
		}
		if head == nil {
			return nil, &mroError{msg: fmt.Sprintf("Cannot create a consistent method resolution order (MRO) for bases %s", describeTypes(t.bases))}
		}
		out = append(out, head)
		for i, s := range seqs {
			if s[0] == head {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(t *Type, seqs [][]*Type) bool {
	for _, s := range seqs {
		for _, x := range s[1:] {
			if x == t {
				return true
			}
		}
	}
	return false
}
