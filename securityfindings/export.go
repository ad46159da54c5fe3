package securityfindings

// Export returns the public contract of a composed unit: a reference string
// that resolves to the function ARN once the stack is deployed. It is stable
// for as long as the instance id does not change.
func Export(u *Unit) string {
	return u.FunctionArnRef().SubString()
}
