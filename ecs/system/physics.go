package system

import (
	"tibiame-combat/data"
	"tibiame-combat/ecs/component"

	"github.com/jakecoffman/cp"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
	"github.com/yohamta/donburi/query"
)

// PhysicsSystem は chipmunk の空間でアクターの位置と移動を管理する SpatialProvider です。
// 重力は0で、速度は移動の意図としてティックごとに設定され、Step の後に0へ戻ります。
type PhysicsSystem struct {
	world  donburi.World
	config *data.Config
	space  *cp.Space
	query  *query.Query
}

// NewPhysicsSystem は新しい PhysicsSystem を生成します。
func NewPhysicsSystem(world donburi.World, config *data.Config) *PhysicsSystem {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{})
	return &PhysicsSystem{
		world:  world,
		config: config,
		space:  space,
		query:  query.NewQuery(filter.Contains(component.BodyComponent, component.TransformComponent)),
	}
}

// Sync はまだ剛体を持たないアクターに剛体と円形の形状を付与します。
func (ps *PhysicsSystem) Sync() {
	ps.query.Each(ps.world, func(entry *donburi.Entry) {
		b := component.BodyComponent.Get(entry)
		if b.Body != nil {
			return
		}
		ps.attach(entry, b)
	})
}

func (ps *PhysicsSystem) attach(entry *donburi.Entry, b *component.Body) {
	mass := ps.config.Physics.ActorMass
	radius := ps.config.Physics.ActorRadius

	body := cp.NewBody(mass, cp.MomentForCircle(mass, 0, radius, cp.Vector{}))
	body.SetPosition(component.TransformComponent.Get(entry).Position)
	body.UserData = entry.Entity()
	ps.space.AddBody(body)

	shape := cp.NewCircle(body, radius, cp.Vector{})
	shape.SetFriction(0)
	if component.LifeComponent.Get(entry).Dead {
		shape.SetSensor(true)
	}
	ps.space.AddShape(shape)

	b.Body = body
	b.Shape = shape
}

// Step は物理空間を dt 秒進め、位置を Transform に反映してから速度を0に戻します。
func (ps *PhysicsSystem) Step(dt float64) {
	if dt > 0 {
		ps.space.Step(dt)
	}
	ps.query.Each(ps.world, func(entry *donburi.Entry) {
		b := component.BodyComponent.Get(entry)
		if b.Body == nil {
			return
		}
		component.TransformComponent.Get(entry).Position = b.Body.Position()
		b.Body.SetVelocityVector(cp.Vector{})
		b.Body.SetAngularVelocity(0)
	})
}

// Position はアクターの現在位置を返します。
func (ps *PhysicsSystem) Position(entry *donburi.Entry) cp.Vector {
	return component.TransformComponent.Get(entry).Position
}

// Teleport はアクターを即座に移動させます。
func (ps *PhysicsSystem) Teleport(entry *donburi.Entry, pos cp.Vector) {
	component.TransformComponent.Get(entry).Position = pos
	if b := component.BodyComponent.Get(entry); b.Body != nil {
		b.Body.SetPosition(pos)
		b.Body.SetVelocityVector(cp.Vector{})
	}
}

// MoveToward は dest へ向かう速度を設定します。dt 秒の移動で dest を通り過ぎないよう速度を抑えます。
func (ps *PhysicsSystem) MoveToward(entry *donburi.Entry, dest cp.Vector, speed, dt float64) {
	delta := dest.Sub(ps.Position(entry))
	dist := delta.Length()
	if dist < 1e-9 || speed <= 0 {
		ps.Stop(entry)
		return
	}
	if dt > 0 && speed*dt > dist {
		speed = dist / dt
	}
	ps.SetVelocity(entry, delta.Mult(speed/dist))
}

// SetVelocity はアクターの速度を設定します。剛体がまだない場合は何もしません。
func (ps *PhysicsSystem) SetVelocity(entry *donburi.Entry, v cp.Vector) {
	if b := component.BodyComponent.Get(entry); b.Body != nil {
		b.Body.SetVelocityVector(v)
	}
}

// Stop はアクターの速度を0にします。
func (ps *PhysicsSystem) Stop(entry *donburi.Entry) {
	ps.SetVelocity(entry, cp.Vector{})
}

// Velocity はアクターの現在の速度を返します。
func (ps *PhysicsSystem) Velocity(entry *donburi.Entry) cp.Vector {
	if b := component.BodyComponent.Get(entry); b.Body != nil {
		return b.Body.Velocity()
	}
	return cp.Vector{}
}

// DisableCollision はアクターの衝突応答を無効にします(センサー化)。
func (ps *PhysicsSystem) DisableCollision(entry *donburi.Entry) {
	if b := component.BodyComponent.Get(entry); b.Shape != nil {
		b.Shape.SetSensor(true)
	}
}

// EnableCollision はアクターの衝突応答を有効に戻します。
func (ps *PhysicsSystem) EnableCollision(entry *donburi.Entry) {
	if b := component.BodyComponent.Get(entry); b.Shape != nil {
		b.Shape.SetSensor(false)
	}
}

// Remove はアクターの剛体と形状を空間から取り除きます。
func (ps *PhysicsSystem) Remove(entry *donburi.Entry) {
	b := component.BodyComponent.Get(entry)
	if b.Shape != nil {
		ps.space.RemoveShape(b.Shape)
	}
	if b.Body != nil {
		ps.space.RemoveBody(b.Body)
	}
	b.Body = nil
	b.Shape = nil
}
