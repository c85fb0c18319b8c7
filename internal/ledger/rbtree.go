package ledger

type color uint8

const (
	red   color = 0
	black color = 1
)

type node struct {
	ts     int32
	price  int32
	color  color
	left   *node
	right  *node
	parent *node
}

// rbtree is a red-black tree of prices keyed by timestamp.
type rbtree struct {
	root *node
	nil  *node // sentinel (black)
	size int
}

func newRBTree() *rbtree {
	nilNode := &node{color: black}
	return &rbtree{root: nilNode, nil: nilNode}
}

// upsert stores price at ts, replacing any existing price.
// It reports whether an existing entry was replaced.
func (t *rbtree) upsert(ts, price int32) bool {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		switch {
		case ts < x.ts:
			x = x.left
		case ts > x.ts:
			x = x.right
		default:
			x.price = price
			return true
		}
	}

	z := &node{
		ts:     ts,
		price:  price,
		color:  red,
		left:   t.nil,
		right:  t.nil,
		parent: y,
	}
	if y == t.nil {
		t.root = z
	} else if z.ts < y.ts {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return false
}

func (t *rbtree) find(ts int32) *node {
	n := t.root
	for n != t.nil {
		switch {
		case ts < n.ts:
			n = n.left
		case ts > n.ts:
			n = n.right
		default:
			return n
		}
	}
	return t.nil
}

// ceiling returns the node with the smallest timestamp >= ts, or the sentinel.
func (t *rbtree) ceiling(ts int32) *node {
	n := t.root
	best := t.nil
	for n != t.nil {
		if ts <= n.ts {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}

func (t *rbtree) minNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *rbtree) next(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *rbtree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbtree) rightRotate(y *node) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *rbtree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}
