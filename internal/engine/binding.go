package engine

import (
	"scenelogic/internal/binding"
	"scenelogic/internal/lnode"
)

// CreateTransformBinding, CreateUniformBinding, CreateCameraBinding, and
// CreateRenderPassBinding implement spec.md §6's
// create_binding_<kind>(external_ref, name) family over internal/binding's
// concrete schemas, routing through the generic CreateBinding.

func (e *Engine) CreateTransformBinding(name string, external lnode.ExternalRef, receiver lnode.Receiver) *lnode.Node {
	return e.CreateBinding(name, binding.KindTransform, binding.TransformSchema(), external, receiver)
}

func (e *Engine) CreateUniformBinding(name string, slots []binding.UniformSlot, external lnode.ExternalRef, receiver lnode.Receiver) (*lnode.Node, error) {
	schema, err := binding.UniformSchema(slots)
	if err != nil {
		e.errs.Append(err)
		return nil, err
	}
	return e.CreateBinding(name, binding.KindUniform, schema, external, receiver), nil
}

func (e *Engine) CreateCameraBinding(name string, external lnode.ExternalRef, receiver lnode.Receiver) *lnode.Node {
	return e.CreateBinding(name, binding.KindCamera, binding.CameraSchema(), external, receiver)
}

func (e *Engine) CreateRenderPassBinding(name string, external lnode.ExternalRef, receiver lnode.Receiver) *lnode.Node {
	return e.CreateBinding(name, binding.KindRenderPass, binding.RenderPassSchema(), external, receiver)
}
