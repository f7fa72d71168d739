// Package phenotype holds small value types that satisfy the evo phenotype
// contracts. They back the built-in challenges and the engine tests.
package phenotype
