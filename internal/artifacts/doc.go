// Package artifacts collects per-ABI shared libraries and the common header
// tree into the output layout (output/lib/<abi>/ and output/include/).
package artifacts
