package shader

// GLSL sources for the scene programs. Attribute locations follow the mesh
// layout uploaded by the renderer: 0 position, 1 normal, 2 uv, 3 color.

// PlaneVertex draws the wobbling plane with per-vertex colours.
const PlaneVertex = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 3) in vec3 aColor;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;

out vec3 vColor;

void main() {
    vColor = aColor;
    gl_Position = projection * view * model * vec4(aPos, 1.0);
}
`

// PlaneFragment outputs the interpolated vertex colour.
const PlaneFragment = `
#version 410 core
in vec3 vColor;
out vec4 FragColor;

void main() {
    FragColor = vec4(vColor, 1.0);
}
`

// LineVertex draws the wireframe with a flat colour.
const LineVertex = `
#version 410 core
layout (location = 0) in vec3 aPos;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;

void main() {
    gl_Position = projection * view * model * vec4(aPos, 1.0);
}
`

// LineFragment outputs the uniform colour.
const LineFragment = `
#version 410 core
uniform vec3 lineColor;
out vec4 FragColor;

void main() {
    FragColor = vec4(lineColor, 1.0);
}
`

// FrameVertex passes world-space normals for the lit window frame.
const FrameVertex = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;

out vec3 vNormal;

void main() {
    vNormal = mat3(model) * aNormal;
    gl_Position = projection * view * model * vec4(aPos, 1.0);
}
`

// FrameFragment is a Lambert material with an ambient term, two
// directional lights and an emissive glow.
const FrameFragment = `
#version 410 core
in vec3 vNormal;
out vec4 FragColor;

uniform vec3 baseColor;
uniform vec3 emissive;
uniform float ambient;
uniform vec3 lightDir[2];
uniform float lightIntensity[2];

void main() {
    vec3 n = normalize(vNormal);
    float diffuse = ambient;
    for (int i = 0; i < 2; i++) {
        diffuse += max(dot(n, normalize(lightDir[i])), 0.0) * lightIntensity[i];
    }
    FragColor = vec4(baseColor * diffuse + emissive, 1.0);
}
`

// PaneVertex maps the background video onto the mirror pane.
const PaneVertex = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;

out vec2 vUv;

void main() {
    vUv = aTexCoord;
    gl_Position = projection * view * model * vec4(aPos, 1.0);
}
`

// PaneFragment samples the video texture without lighting or tone mapping.
const PaneFragment = `
#version 410 core
in vec2 vUv;
out vec4 FragColor;

uniform sampler2D videoTexture;

void main() {
    FragColor = vec4(texture(videoTexture, vUv).rgb, 1.0);
}
`

// OverlayVertex crops the camera image by re-centring the UVs per axis.
const OverlayVertex = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;
uniform float uvScaleX;
uniform float uvScaleY;

out vec2 vUv;

void main() {
    vUv = aTexCoord;
    vUv.x = vUv.x * uvScaleX + (1.0 - uvScaleX) / 2.0;
    vUv.y = vUv.y * uvScaleY + (1.0 - uvScaleY) / 2.0;
    gl_Position = projection * view * model * vec4(aPos, 1.0);
}
`

// OverlayFragment turns the camera into a grainy, posterized drawing with
// dark Sobel outlines. Shade in cartoon.go is its CPU twin.
const OverlayFragment = `
#version 410 core
in vec2 vUv;
out vec4 FragColor;

uniform sampler2D cameraTexture;
uniform float opacity;
uniform float time;
uniform vec2 texelSize;
uniform float posterizeLevels;
uniform float grainAmount;
uniform float edgeLow;
uniform float edgeHigh;

const vec3 luma = vec3(0.299, 0.587, 0.114);

float rand(vec2 co) {
    return fract(sin(dot(co.xy, vec2(12.9898, 78.233))) * 43758.5453);
}

float sobel(sampler2D tex, vec2 uv) {
    vec2 offsets[9] = vec2[](
        vec2(-texelSize.x,  texelSize.y), vec2(0.0,  texelSize.y), vec2(texelSize.x,  texelSize.y),
        vec2(-texelSize.x,  0.0),         vec2(0.0,  0.0),         vec2(texelSize.x,  0.0),
        vec2(-texelSize.x, -texelSize.y), vec2(0.0, -texelSize.y), vec2(texelSize.x, -texelSize.y)
    );
    float kernelX[9] = float[](-1.0, 0.0, 1.0, -2.0, 0.0, 2.0, -1.0, 0.0, 1.0);
    float kernelY[9] = float[](1.0, 2.0, 1.0, 0.0, 0.0, 0.0, -1.0, -2.0, -1.0);

    float gx = 0.0;
    float gy = 0.0;
    for (int i = 0; i < 9; i++) {
        float l = dot(texture(tex, uv + offsets[i]).rgb, luma);
        gx += kernelX[i] * l;
        gy += kernelY[i] * l;
    }
    return sqrt(gx * gx + gy * gy);
}

void main() {
    vec4 color = texture(cameraTexture, vUv);

    float grayscale = dot(color.rgb, luma);
    grayscale += rand(vUv * time * 10.0) * grainAmount;
    grayscale = floor(grayscale * posterizeLevels) / posterizeLevels;

    float edge = smoothstep(edgeLow, edgeHigh, sobel(cameraTexture, vUv));

    FragColor = vec4(vec3(grayscale - edge), opacity);
}
`
