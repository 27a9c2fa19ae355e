package renderer

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-splash/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// targetFormat is the color format of every off-screen target. Half float keeps the feedback
// history from banding as it decays.
const targetFormat = wgpu.TextureFormatRGBA16Float

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   wgpu.PresentMode
	surfaceSize   common.Size
	capability    Capability

	programs []*wgpuProgram
	targets  []*wgpuTarget

	// Frame state for batched rendering across multiple passes
	frameEncoder *wgpu.CommandEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameGroups  []*wgpu.BindGroup

	released bool
}

type wgpuTarget struct {
	label    string
	size     common.Size
	texture  *wgpu.Texture
	view     *wgpu.TextureView
	released bool
}

func (t *wgpuTarget) Label() string { return t.label }
func (t *wgpuTarget) Size() common.Size { return t.size }
func (t *wgpuTarget) Released() bool { return t.released }

func (t *wgpuTarget) Release() {
	if t.released {
		return
	}
	t.released = true
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

type wgpuProgram struct {
	label        string
	samplerCount int
	output       OutputKind

	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
	plLayout *wgpu.PipelineLayout
	uniforms *wgpu.Buffer
	sampler  *wgpu.Sampler
	released bool
}

func (p *wgpuProgram) Label() string { return p.label }
func (p *wgpuProgram) SamplerCount() int { return p.samplerCount }
func (p *wgpuProgram) Output() OutputKind { return p.output }
func (p *wgpuProgram) Released() bool { return p.released }

func (p *wgpuProgram) Release() {
	if p.released {
		return
	}
	p.released = true
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.plLayout != nil {
		p.plLayout.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.uniforms != nil {
		p.uniforms.Release()
	}
	if p.sampler != nil {
		p.sampler.Release()
	}
}

// pruneReleased drops released entries in place so the backend only tracks live resources.
func pruneReleased[T interface{ Released() bool }](items []T) []T {
	live := items[:0]
	for _, it := range items {
		if !it.Released() {
			live = append(live, it)
		}
	}
	clear(items[len(live):])
	return live
}

// isSoftwareAdapter reports whether the adapter type is a CPU implementation.
func isSoftwareAdapter(t wgpu.AdapterType) bool {
	return t == wgpu.AdapterTypeCPU
}

// newWGPURendererBackend requests an adapter and device for the surface and runs the capability
// probe against the adapter limits. A nil backend is returned only alongside an error.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, size common.Size, cfg acquireConfig) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpuPresentMode(cfg.presentMode),
	}
	if w.instance == nil {
		return nil, fmt.Errorf("%w: no instance", ErrContextUnavailable)
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)
	if w.surface == nil {
		w.Release()
		return nil, fmt.Errorf("%w: no surface", ErrContextUnavailable)
	}

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    w.surface,
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: %v", ErrContextUnavailable, err)
	}
	w.adapter = a

	supported := a.GetLimits().Limits
	w.capability = Probe(DeviceLimits{
		MaxTextureDimension2D:            supported.MaxTextureDimension2D,
		MaxBindGroups:                    supported.MaxBindGroups,
		MaxSampledTexturesPerShaderStage: supported.MaxSampledTexturesPerShaderStage,
		MaxSamplersPerShaderStage:        supported.MaxSamplersPerShaderStage,
		MaxUniformBufferBindingSize:      supported.MaxUniformBufferBindingSize,
		Software:                         isSoftwareAdapter(a.GetInfo().AdapterType),
	}, Requirements{
		Surface:         size,
		SampledTextures: 2,
		AllowSoftware:   cfg.forceFallbackAdapter,
	})
	if !Supported(w.capability) {
		return w, nil
	}

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Splash Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("%w: %v", ErrContextUnavailable, err)
	}
	w.device = d
	w.queue = d.GetQueue()

	capabilities := w.surface.GetCapabilities(w.adapter)
	if len(capabilities.Formats) == 0 {
		w.Release()
		return nil, fmt.Errorf("%w: surface reports no formats", ErrContextUnavailable)
	}
	w.surfaceFormat = capabilities.Formats[0]
	w.alphaMode = capabilities.AlphaModes[0]
	for _, m := range capabilities.AlphaModes {
		if m == wgpu.CompositeAlphaModeOpaque {
			w.alphaMode = m
		}
	}

	w.ConfigureSurface(size)
	return w, nil
}

func wgpuPresentMode(mode PresentMode) wgpu.PresentMode {
	switch mode {
	case PresentModeUncapped:
		return wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		return wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) Capability() Capability {
	return b.capability
}

func (b *wgpuRendererBackendImpl) SurfaceSize() common.Size {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceSize
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(size common.Size) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil || b.released {
		return
	}
	size = size.AtLeastOne()
	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(size.Width),
		Height:      uint32(size.Height),
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})
	b.surfaceSize = size
}

func (b *wgpuRendererBackendImpl) CreateTarget(label string, size common.Size) (Target, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil || b.released {
		return nil, ErrReleased
	}
	if size.Width < 1 || size.Height < 1 {
		return nil, fmt.Errorf("%w: %s has empty size %dx%d", ErrFramebufferIncomplete, label, size.Width, size.Height)
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
			wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              uint32(size.Width),
			Height:             uint32(size.Height),
			DepthOrArrayLayers: 1,
		},
		Format:        targetFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFramebufferIncomplete, label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: %s: %v", ErrFramebufferIncomplete, label, err)
	}
	t := &wgpuTarget{label: label, size: size, texture: tex, view: view}

	// A fresh texture's contents are undefined until written. Clear it once so an unwritten
	// history target samples as transparent black.
	if err := b.clear(t); err != nil {
		t.Release()
		return nil, fmt.Errorf("%w: %s: %v", ErrFramebufferIncomplete, label, err)
	}
	b.targets = append(pruneReleased(b.targets), t)
	return t, nil
}

func (b *wgpuRendererBackendImpl) clear(t *wgpuTarget) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: t.label + " Clear",
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	return nil
}

func (b *wgpuRendererBackendImpl) CreateProgram(desc ProgramDescriptor) (Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil || b.released {
		return nil, ErrReleased
	}

	vs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Vertex",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.VertexSource,
		},
	})
	if err != nil {
		return nil, err
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label + " Fragment",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.FragmentSource,
		},
	})
	if err != nil {
		return nil, err
	}
	defer fs.Release()

	p := &wgpuProgram{label: desc.Label, samplerCount: desc.SamplerCount, output: desc.Output}

	p.layout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label + " Bind Group Layout",
		Entries: passLayoutEntries(desc.SamplerCount),
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("failed to create bind group layout for %s: %w", desc.Label, err)
	}

	p.plLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.layout},
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	format := targetFormat
	if desc.Output == OutputSurface {
		format = b.surfaceFormat
	}

	p.pipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: p.plLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: common.Coalesce(desc.VertexEntryPoint, "vs_main"),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: common.Coalesce(desc.FragmentEntryPoint, "fs_main"),
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	p.uniforms, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label + " Uniforms",
		Size:  uint64(unsafe.Sizeof(common.FrameUniforms{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	p.sampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label + " Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	b.programs = append(pruneReleased(b.programs), p)
	return p, nil
}

// passLayoutEntries builds the uniform + sampler + n texture layout shared by every pass.
func passLayoutEntries(samplerCount int) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, FirstTextureBinding+samplerCount)

	uniform := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment}
	uniform.Buffer.Type = wgpu.BufferBindingTypeUniform
	uniform.Buffer.MinBindingSize = uint64(unsafe.Sizeof(common.FrameUniforms{}))
	entries = append(entries, uniform)

	smp := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
	smp.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	entries = append(entries, smp)

	for i := range samplerCount {
		tex := wgpu.BindGroupLayoutEntry{Binding: uint32(FirstTextureBinding + i), Visibility: wgpu.ShaderStageFragment}
		tex.Texture.SampleType = wgpu.TextureSampleTypeFloat
		tex.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entries = append(entries, tex)
	}
	return entries
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil || b.released {
		return ErrReleased
	}
	if b.frameSurface != nil {
		return fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) DrawPass(call DrawCall) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	p, ok := call.Program.(*wgpuProgram)
	if !ok || p.released {
		return fmt.Errorf("%w: program", ErrReleased)
	}
	if len(call.Inputs) != p.samplerCount {
		return fmt.Errorf("%s binds %d inputs, got %d", p.label, p.samplerCount, len(call.Inputs))
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: p.uniforms, Offset: 0, Size: wgpu.WholeSize},
		{Binding: 1, Sampler: p.sampler},
	}
	for i, in := range call.Inputs {
		t, ok := in.(*wgpuTarget)
		if !ok || t.released {
			return fmt.Errorf("%w: %s input %d", ErrReleased, p.label, i)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(FirstTextureBinding + i), TextureView: t.view})
	}

	view := b.frameView
	if call.Output != nil {
		t, ok := call.Output.(*wgpuTarget)
		if !ok || t.released {
			return fmt.Errorf("%w: %s output", ErrReleased, p.label)
		}
		view = t.view
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   p.label + " Bind Group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	b.frameGroups = append(b.frameGroups, bindGroup)

	b.queue.WriteBuffer(p.uniforms, 0, common.StructToBytes(&call.Uniforms))

	vp := call.Viewport.AtLeastOne()
	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: p.label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{A: 1},
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.SetViewport(0, 0, float32(vp.Width), float32(vp.Height), 0, 1)
	pass.Draw(6, 1, 0, 0)
	pass.End()
	pass.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) CopyTarget(src, dst Target) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNoFrame
	}
	s, ok := src.(*wgpuTarget)
	if !ok || s.released {
		return fmt.Errorf("%w: copy source", ErrReleased)
	}
	d, ok := dst.(*wgpuTarget)
	if !ok || d.released {
		return fmt.Errorf("%w: copy destination", ErrReleased)
	}
	if s.size != d.size {
		return fmt.Errorf("copy %s -> %s: size mismatch %v vs %v", s.label, d.label, s.size, d.size)
	}

	b.frameEncoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: d.texture, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{
			Width:              uint32(s.size.Width),
			Height:             uint32(s.size.Height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		b.surface.Present()
	}

	b.releaseFrame()
}

func (b *wgpuRendererBackendImpl) releaseFrame() {
	for _, g := range b.frameGroups {
		g.Release()
	}
	b.frameGroups = b.frameGroups[:0]
	if b.frameEncoder != nil {
		b.frameEncoder.Release()
		b.frameEncoder = nil
	}
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.released = true

	b.releaseFrame()
	for _, p := range b.programs {
		p.Release()
	}
	b.programs = nil
	for _, t := range b.targets {
		t.Release()
	}
	b.targets = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
