package render

import (
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/optiscan3d/surfaceviewer/common"
	"github.com/optiscan3d/surfaceviewer/viewer/picking"
)

// pickTexelBytes is the size of one rg32uint texel, which is all the
// readback buffer ever holds.
const pickTexelBytes = 8

type wgpuBackend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat *wgpu.TextureFormat
	width         int
	height        int

	depthView *wgpu.TextureView
	pickTex   *wgpu.Texture
	pickView  *wgpu.TextureView
	readback  *wgpu.Buffer

	shaderModule *wgpu.ShaderModule
	layouts      [4]*wgpu.BindGroupLayout
	groups       [4]*wgpu.BindGroup
	pipelines    map[Mode]*wgpu.RenderPipeline

	// uniform buffers, fixed size for the life of the backend
	dimsBuf  *wgpu.Buffer
	rangeBuf *wgpu.Buffer
	mipBuf   *wgpu.Buffer
	worldBuf *wgpu.Buffer
	projBuf  *wgpu.Buffer

	// grid resources, replaced by InitGeometry
	gridW      int
	gridH      int
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount int
	surfaceTex *wgpu.Texture
	amplTex    *wgpu.Texture
	overlayTex *wgpu.Texture

	// in-progress frame state
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	framePick    *PickCopy

	// pick readback state
	readbackPending bool
	readbackDone    bool
	readbackStatus  wgpu.BufferMapAsyncStatus
}

var _ Backend = &wgpuBackend{}

// NewWGPUBackend acquires an adapter and device for a window surface and
// builds the two shading pipelines. The calling goroutine is locked to its
// OS thread; all further backend calls must come from it.
//
// Parameters:
//   - surfaceDescriptor: the window's surface descriptor
//
// Returns:
//   - Backend: the GPU backend
//   - error: ErrDeviceUnavailable when no adapter or device can be acquired
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor) (Backend, error) {
	runtime.LockOSThread()

	b := &wgpuBackend{
		instance:  wgpu.CreateInstance(nil),
		pipelines: make(map[Mode]*wgpu.RenderPipeline),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Viewer Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	b.device = device
	b.queue = device.GetQueue()

	if err := b.initShared(); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// initShared creates the resources that never change size: the uniform
// buffers, the pick readback buffer, the bind group layouts and the uniform
// bind groups (1 through 3). Group 0 holds the data textures and is rebuilt
// by InitGeometry.
func (b *wgpuBackend) initShared() error {
	var err error
	if b.shaderModule, err = b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Surface Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaderSource,
		},
	}); err != nil {
		return err
	}

	uniform := func(label string, size uint64) (*wgpu.Buffer, error) {
		return b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
	}
	if b.dimsBuf, err = uniform("Image Dims Buffer", 8); err != nil {
		return err
	}
	if b.rangeBuf, err = uniform("Value Range Buffer", 8); err != nil {
		return err
	}
	if b.mipBuf, err = uniform("Mip Level Buffer", 4); err != nil {
		return err
	}
	if b.worldBuf, err = uniform("World Transform Buffer", 64); err != nil {
		return err
	}
	if b.projBuf, err = uniform("Projection Buffer", 64); err != nil {
		return err
	}

	if b.readback, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Pick Readback Buffer",
		Size:  pickTexelBytes,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	}); err != nil {
		return err
	}

	texEntry := func(binding uint32, sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    sampleType,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		}
	}
	if b.layouts[0], err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Texture Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			texEntry(0, wgpu.TextureSampleTypeUnfilterableFloat),
			texEntry(1, wgpu.TextureSampleTypeUnfilterableFloat),
			texEntry(2, wgpu.TextureSampleTypeUnfilterableFloat),
		},
	}); err != nil {
		return err
	}

	bufEntry := func(binding uint32, size uint64) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: size,
			},
		}
	}
	if b.layouts[1], err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Image Info Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			bufEntry(0, 8),
			bufEntry(1, 8),
			bufEntry(2, 4),
		},
	}); err != nil {
		return err
	}
	if b.layouts[2], err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "World Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{bufEntry(0, 64)},
	}); err != nil {
		return err
	}
	if b.layouts[3], err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Projection Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{bufEntry(0, 64)},
	}); err != nil {
		return err
	}

	bufGroup := func(label string, layout *wgpu.BindGroupLayout, buffers ...*wgpu.Buffer) (*wgpu.BindGroup, error) {
		entries := make([]wgpu.BindGroupEntry, len(buffers))
		for i, buf := range buffers {
			entries[i] = wgpu.BindGroupEntry{
				Binding: uint32(i),
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
		return b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   label,
			Layout:  layout,
			Entries: entries,
		})
	}
	if b.groups[1], err = bufGroup("Image Info Bind Group", b.layouts[1], b.dimsBuf, b.rangeBuf, b.mipBuf); err != nil {
		return err
	}
	if b.groups[2], err = bufGroup("World Bind Group", b.layouts[2], b.worldBuf); err != nil {
		return err
	}
	if b.groups[3], err = bufGroup("Projection Bind Group", b.layouts[3], b.projBuf); err != nil {
		return err
	}
	return nil
}

func (b *wgpuBackend) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	b.width, b.height = width, height

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	if b.depthView, err = depthTexture.CreateView(nil); err != nil {
		panic(err)
	}

	// The pick attachment tracks the framebuffer size so a cursor position
	// indexes it directly.
	if b.pickTex, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Pick Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRG32Uint,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
	}); err != nil {
		panic(err)
	}
	if b.pickView, err = b.pickTex.CreateView(nil); err != nil {
		panic(err)
	}

	if len(b.pipelines) == 0 {
		b.createPipelines()
	}
}

// createPipelines builds the height and amplitude render pipelines. Both
// share the vertex stage, the layout and the dual color targets; only the
// fragment entry point differs.
func (b *wgpuBackend) createPipelines() {
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Surface Pipeline Layout",
		BindGroupLayouts: b.layouts[:],
	})
	if err != nil {
		panic(err)
	}

	vertexLayout := wgpu.VertexBufferLayout{
		ArrayStride: 4,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{
				Offset:         0,
				ShaderLocation: 0,
				Format:         wgpu.VertexFormatUint32,
			},
		},
	}

	for mode, entryPoint := range map[Mode]string{
		ModeHeight:    "fs_height",
		ModeAmplitude: "fs_amplitude",
	} {
		pipeline, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  entryPoint + " Render Pipeline",
			Layout: pipelineLayout,
			Vertex: wgpu.VertexState{
				Module:     b.shaderModule,
				EntryPoint: "vs_main",
				Buffers:    []wgpu.VertexBufferLayout{vertexLayout},
			},
			Fragment: &wgpu.FragmentState{
				Module:     b.shaderModule,
				EntryPoint: entryPoint,
				Targets: []wgpu.ColorTargetState{
					{
						Format:    *b.surfaceFormat,
						WriteMask: wgpu.ColorWriteMaskAll,
					},
					{
						Format:    wgpu.TextureFormatRG32Uint,
						WriteMask: wgpu.ColorWriteMaskAll,
					},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:         wgpu.PrimitiveTopologyTriangleStrip,
				StripIndexFormat: wgpu.IndexFormatUint32,
				FrontFace:        wgpu.FrontFaceCCW,
				CullMode:         wgpu.CullModeNone,
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
			DepthStencil: &wgpu.DepthStencilState{
				Format:            wgpu.TextureFormatDepth32Float,
				DepthWriteEnabled: true,
				DepthCompare:      wgpu.CompareFunctionLess,
				StencilFront: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
				StencilBack: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
			},
		})
		if err != nil {
			panic(err)
		}
		b.pipelines[mode] = pipeline
	}
}

func (b *wgpuBackend) InitGeometry(width, height int, vertexIDs, indices []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseGrid()
	b.gridW, b.gridH = width, height

	var err error
	if b.vertexBuf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Grid Vertex Buffer",
		Size:  uint64(len(vertexIDs) * 4),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	}); err != nil {
		return err
	}
	b.queue.WriteBuffer(b.vertexBuf, 0, common.SliceToBytes(vertexIDs))

	if b.indexBuf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Grid Index Buffer",
		Size:  uint64(len(indices) * 4),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	}); err != nil {
		return err
	}
	b.queue.WriteBuffer(b.indexBuf, 0, common.SliceToBytes(indices))
	b.indexCount = len(indices)

	dataTexture := func(label string, format wgpu.TextureFormat) (*wgpu.Texture, error) {
		return b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:     label,
			Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			Dimension: wgpu.TextureDimension2D,
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			Format:        format,
			MipLevelCount: 1,
			SampleCount:   1,
		})
	}
	if b.surfaceTex, err = dataTexture("Surface Texture", wgpu.TextureFormatR32Float); err != nil {
		return err
	}
	if b.amplTex, err = dataTexture("Amplitude Texture", wgpu.TextureFormatR32Float); err != nil {
		return err
	}
	if b.overlayTex, err = dataTexture("Overlay Texture", wgpu.TextureFormatRGBA8Unorm); err != nil {
		return err
	}

	views := make([]*wgpu.TextureView, 3)
	for i, tex := range []*wgpu.Texture{b.surfaceTex, b.amplTex, b.overlayTex} {
		if views[i], err = tex.CreateView(nil); err != nil {
			return err
		}
	}

	entries := make([]wgpu.BindGroupEntry, 3)
	for i, view := range views {
		entries[i] = wgpu.BindGroupEntry{
			Binding:     uint32(i),
			TextureView: view,
		}
	}
	if b.groups[0], err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Texture Bind Group",
		Layout:  b.layouts[0],
		Entries: entries,
	}); err != nil {
		return err
	}

	dims := [2]uint32{uint32(width), uint32(height)}
	b.queue.WriteBuffer(b.dimsBuf, 0, common.SliceToBytes(dims[:]))

	// The amplitude texture reads as zero until samples arrive.
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  b.amplTex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		make([]byte, width*height*4),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * 4),
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

// writeGridTexture uploads a full-size texel payload to one of the data
// textures.
func (b *wgpuBackend) writeGridTexture(tex *wgpu.Texture, data []byte, bytesPerTexel int) {
	if tex == nil {
		return
	}
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(b.gridW * bytesPerTexel),
			RowsPerImage: uint32(b.gridH),
		},
		&wgpu.Extent3D{
			Width:              uint32(b.gridW),
			Height:             uint32(b.gridH),
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuBackend) WriteSurface(samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeGridTexture(b.surfaceTex, common.SliceToBytes(samples), 4)
}

func (b *wgpuBackend) WriteAmplitude(samples []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeGridTexture(b.amplTex, common.SliceToBytes(samples), 4)
}

func (b *wgpuBackend) WriteOverlay(pix []uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeGridTexture(b.overlayTex, pix, 4)
}

func (b *wgpuBackend) WriteRange(min, max float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rng := [2]float32{min, max}
	b.queue.WriteBuffer(b.rangeBuf, 0, common.SliceToBytes(rng[:]))
}

func (b *wgpuBackend) WriteMip(level uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.mipBuf, 0, common.StructToBytes(&level))
}

func (b *wgpuBackend) WriteWorld(m []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.worldBuf, 0, common.SliceToBytes(m[:16]))
}

func (b *wgpuBackend) WriteProjection(m []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue.WriteBuffer(b.projBuf, 0, common.SliceToBytes(m[:16]))
}

func (b *wgpuBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return ErrFrameInFlight
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

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
			{
				View:       b.pickView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	b.frameEncoder = encoder
	b.framePass = pass
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuBackend) Draw(mode Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil || b.indexCount == 0 {
		return
	}
	b.framePass.SetPipeline(b.pipelines[mode])
	for i, group := range b.groups {
		b.framePass.SetBindGroup(uint32(i), group, nil)
	}
	b.framePass.SetVertexBuffer(0, b.vertexBuf, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(b.indexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(b.indexCount), 1, 0, 0, 0)
}

func (b *wgpuBackend) EndFrame(pick *PickCopy) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return
	}
	b.framePass.End()

	encodedPick := false
	if pick != nil && !b.readbackPending && b.pickTex != nil {
		x := clampInt(pick.X, 0, b.width-1)
		y := clampInt(pick.Y, 0, b.height-1)
		b.frameEncoder.CopyTextureToBuffer(
			&wgpu.ImageCopyTexture{
				Texture:  b.pickTex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y), Z: 0},
				Aspect:   wgpu.TextureAspectAll,
			},
			&wgpu.ImageCopyBuffer{
				Buffer: b.readback,
				Layout: wgpu.TextureDataLayout{
					Offset:       0,
					BytesPerRow:  256,
					RowsPerImage: 1,
				},
			},
			&wgpu.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		)
		encodedPick = true
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err != nil {
		log.Printf("frame encoder finish failed: %v", err)
		b.frameEncoder.Release()
		b.frameView.Release()
		b.frameSurface.Release()
		b.frameEncoder = nil
		b.framePass = nil
		b.frameSurface = nil
		b.frameView = nil
		return
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.framePass = nil

	if encodedPick {
		b.readbackPending = true
		b.readbackDone = false
		b.readback.MapAsync(wgpu.MapModeRead, 0, pickTexelBytes, func(status wgpu.BufferMapAsyncStatus) {
			b.readbackDone = true
			b.readbackStatus = status
		})
	}
}

func (b *wgpuBackend) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
}

func (b *wgpuBackend) PollPick() (picking.Datum, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.readbackPending {
		return picking.Datum{}, false
	}

	b.device.Poll(false, nil)
	if !b.readbackDone {
		return picking.Datum{}, false
	}
	b.readbackPending = false

	if b.readbackStatus != wgpu.BufferMapAsyncStatusSuccess {
		log.Printf("pick readback map failed: %v", b.readbackStatus)
		return picking.Datum{}, true
	}

	raw := b.readback.GetMappedRange(0, pickTexelBytes)
	texel := common.BytesToSlice[uint32](raw)
	datum := picking.Datum{texel[0], texel[1]}
	b.readback.Unmap()
	return datum, true
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseGrid()
	release := func(buffers ...*wgpu.Buffer) {
		for _, buf := range buffers {
			if buf != nil {
				buf.Release()
			}
		}
	}
	release(b.dimsBuf, b.rangeBuf, b.mipBuf, b.worldBuf, b.projBuf, b.readback)
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}

// releaseGrid frees the per-surface resources. Caller holds the lock.
func (b *wgpuBackend) releaseGrid() {
	if b.vertexBuf != nil {
		b.vertexBuf.Release()
		b.vertexBuf = nil
	}
	if b.indexBuf != nil {
		b.indexBuf.Release()
		b.indexBuf = nil
	}
	for _, tex := range []*wgpu.Texture{b.surfaceTex, b.amplTex, b.overlayTex} {
		if tex != nil {
			tex.Release()
		}
	}
	b.surfaceTex, b.amplTex, b.overlayTex = nil, nil, nil
	b.indexCount = 0
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
