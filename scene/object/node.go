package object

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/scene_browser/scene/animation"
	"github.com/mogaika/scene_browser/utils"
)

// State is the construction stage a node reached. Nodes only move forward.
type State int

const (
	StateDeclared State = iota
	StateConstructed
	StateTransformApplied
	StateChildrenAttached
	StateLevelsResolved
	StateFinalized
)

var stateNames = [...]string{"declared", "constructed", "transform-applied", "children-attached", "levels-resolved", "finalized"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Node is any element of the scene tree.
type Node interface {
	Object() *Object3D
}

type Object3D struct {
	UUID string
	Name string
	Type string

	Position   mgl32.Vec3
	Quaternion mgl32.Quat
	Rotation   Euler
	Scale      mgl32.Vec3

	Visible       bool
	RenderOrder   int
	CastShadow    bool
	ReceiveShadow bool
	UserData      json.RawMessage

	Children   []Node
	Parent     Node
	Animations []*animation.Clip

	State State

	self Node
}

func (o *Object3D) Object() *Object3D { return o }

// Node returns the variant that embeds this object.
func (o *Object3D) Node() Node {
	if o.self != nil {
		return o.self
	}
	return o
}

func (o *Object3D) init(self Node, typ string) {
	o.self = self
	o.Type = typ
	o.Quaternion = mgl32.QuatIdent()
	o.Rotation = Euler{Order: "XYZ"}
	o.Scale = mgl32.Vec3{1, 1, 1}
	o.Visible = true
	o.State = StateConstructed
}

func newNode[T Node](n T, typ string) T {
	n.Object().init(n, typ)
	return n
}

func NewObject3D() *Object3D {
	return newNode(&Object3D{}, "Object3D")
}

func (o *Object3D) advance(s State) {
	if s > o.State {
		o.State = s
	}
}

// Add appends child, detaching it from a previous parent.
func (o *Object3D) Add(child Node) {
	c := child.Object()
	if c == o {
		return
	}
	if c.Parent != nil {
		c.Parent.Object().Remove(child)
	}
	c.Parent = o.Node()
	o.Children = append(o.Children, child)
}

func (o *Object3D) Remove(child Node) {
	c := child.Object()
	for i, n := range o.Children {
		if n.Object() == c {
			o.Children = append(o.Children[:i], o.Children[i+1:]...)
			c.Parent = nil
			return
		}
	}
}

// SetRotation updates the quaternion too.
func (o *Object3D) SetRotation(e Euler) {
	if !utils.ValidEulerOrder(e.Order) {
		e.Order = "XYZ"
	}
	o.Rotation = e
	o.Quaternion = utils.EulerToQuat(e.X, e.Y, e.Z, e.Order)
}

// SetQuaternion updates the euler rotation in its current order.
func (o *Object3D) SetQuaternion(q mgl32.Quat) {
	o.Quaternion = q.Normalize()
	r := utils.QuatToEuler(o.Quaternion, o.Rotation.Order)
	o.Rotation = Euler{X: r[0], Y: r[1], Z: r[2], Order: o.Rotation.Order}
}

// SetMatrix decomposes m into position, orientation and scale.
func (o *Object3D) SetMatrix(m mgl32.Mat4) {
	pos, rot, scale := utils.DecomposeMat4(m)
	o.Position = pos
	o.Scale = scale
	o.SetQuaternion(rot)
}

func (o *Object3D) Matrix() mgl32.Mat4 {
	return utils.ComposeMat4(o.Position, o.Quaternion, o.Scale)
}

// WorldMatrix multiplies the local matrices up to the root.
func (o *Object3D) WorldMatrix() mgl32.Mat4 {
	m := o.Matrix()
	for p := o.Parent; p != nil; p = p.Object().Parent {
		m = p.Object().Matrix().Mul4(m)
	}
	return m
}

// Traverse calls fn for the node and every descendant in pre-order.
func (o *Object3D) Traverse(fn func(n Node)) {
	fn(o.Node())
	for _, c := range o.Children {
		c.Object().Traverse(fn)
	}
}

// FindDescendant searches the subtree below o, o itself excluded.
func (o *Object3D) FindDescendant(match func(n Node) bool) Node {
	for _, c := range o.Children {
		if match(c) {
			return c
		}
		if found := c.Object().FindDescendant(match); found != nil {
			return found
		}
	}
	return nil
}

func (o *Object3D) FindByUUID(id string) Node {
	if o.UUID == id {
		return o.Node()
	}
	return o.FindDescendant(func(n Node) bool { return n.Object().UUID == id })
}

func (o *Object3D) FindByName(name string) Node {
	if o.Name == name {
		return o.Node()
	}
	return o.FindDescendant(func(n Node) bool { return n.Object().Name == name })
}

// Count is the number of nodes in the subtree including o.
func (o *Object3D) Count() int {
	n := 0
	o.Traverse(func(Node) { n++ })
	return n
}
