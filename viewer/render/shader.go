package render

// shaderSource is the single WGSL module shared by both pipelines. The
// vertex stage reconstructs grid positions from a bare vertex id stream; the
// two fragment entry points implement the height and amplitude shading
// modes. Overlay blending applies to height mode only. Both entry points
// write the full-resolution cell coordinate, offset by one so the cleared
// background stays distinguishable from cell (0, 0), into the integer pick
// attachment.
const shaderSource = `
struct VertexInput {
    @location(0) vertex_id: u32,
};

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
    @location(0) @interpolate(flat) cell: vec2<u32>,
};

struct FragmentOutput {
    @location(0) color: vec4<f32>,
    @location(1) pick: vec2<u32>,
};

@group(0) @binding(0) var surface_tex: texture_2d<f32>;
@group(0) @binding(1) var amplitude_tex: texture_2d<f32>;
@group(0) @binding(2) var overlay_tex: texture_2d<f32>;

@group(1) @binding(0) var<uniform> dims: vec2<u32>;
@group(1) @binding(1) var<uniform> z_range: vec2<f32>;
@group(1) @binding(2) var<uniform> mip_level: u32;

@group(2) @binding(0) var<uniform> world: mat4x4<f32>;

@group(3) @binding(0) var<uniform> projection: mat4x4<f32>;

fn normalized_height(src: vec2<u32>) -> f32 {
    let raw = textureLoad(surface_tex, vec2<i32>(src), 0).r;
    let clamped = clamp(raw, z_range.x, z_range.y);
    let span = max(z_range.y - z_range.x, 1e-20);
    return (clamped - z_range.x) / span;
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    let stride = max(mip_level * 2u, 1u);
    let eff_w = dims.x / stride;
    let eff_h = dims.y / stride;

    let col = (in.vertex_id % dims.x) / stride;
    let row = (in.vertex_id / dims.x) / stride;
    let src = vec2<u32>(col * stride, row * stride);

    let x = 2.0 * f32(col) / f32(eff_w - 1u) - 1.0;
    let y = 1.0 - 2.0 * f32(row) / f32(eff_h - 1u);
    let z = 1.0 - normalized_height(src);

    var out: VertexOutput;
    out.clip_position = projection * world * vec4<f32>(x, y, z, 1.0);
    out.cell = src;
    return out;
}

fn blend_overlay(base: vec3<f32>, cell: vec2<u32>) -> vec3<f32> {
    let overlay = textureLoad(overlay_tex, vec2<i32>(cell), 0);
    return overlay.rgb * overlay.a + base * (1.0 - overlay.a);
}

@fragment
fn fs_height(in: VertexOutput) -> FragmentOutput {
    let shade = normalized_height(in.cell);

    var out: FragmentOutput;
    out.color = vec4<f32>(blend_overlay(vec3<f32>(shade), in.cell), 1.0);
    out.pick = in.cell + vec2<u32>(1u, 1u);
    return out;
}

@fragment
fn fs_amplitude(in: VertexOutput) -> FragmentOutput {
    let a = textureLoad(amplitude_tex, vec2<i32>(in.cell), 0).r;

    var out: FragmentOutput;
    out.color = vec4<f32>(1.0 - a, a, 0.0, 1.0);
    out.pick = in.cell + vec2<u32>(1u, 1u);
    return out;
}
`
