package control

// None is the open-loop controller: it always outputs zero.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Update(e, tr float64) (float64, error) {
	return 0, nil
}

func (n *None) Reset() error {
	return nil
}
