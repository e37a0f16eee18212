// Package registry declares what every stage kind is: whether it reads point
// data, whether it is a reader, what it produces and which connections it
// accepts.
//
// Factories build stages; the registry describes them. Keeping the two apart
// lets a pipeline decoded from JSON or HCL be checked and rebuilt without
// calling any factory, and makes properties such as "needs point data"
// explicit declarations instead of guesses from the algoname.
//
// Stage packages contribute their definitions through the Module interface
// at startup, after which the registry is only read.
package registry
